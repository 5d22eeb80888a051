package tlsroots

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// brokerCA writes a self-signed broker certificate and its key into dir
// and returns both paths.
func brokerCA(t *testing.T, dir, name string) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: name},
		DNSNames:              []string{name},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate() error = %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey() error = %v", err)
	}

	certFile := filepath.Join(dir, name+".crt")
	keyFile := filepath.Join(dir, name+".key")
	writePEM(t, certFile, "CERTIFICATE", der)
	writePEM(t, keyFile, "EC PRIVATE KEY", keyDER)
	return certFile, keyFile
}

func writePEM(t *testing.T, path, typ string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	return data
}

func TestAppendPEM(t *testing.T) {
	dir := t.TempDir()
	a, key := brokerCA(t, dir, "broker-a")
	b, _ := brokerCA(t, dir, "broker-b")

	bundle := append(readFile(t, a), readFile(t, key)...)
	bundle = append(bundle, readFile(t, b)...)

	pool := x509.NewCertPool()
	if err := AppendPEM(pool, bundle); err != nil {
		t.Fatalf("AppendPEM() error = %v", err)
	}
	if pool.Equal(x509.NewCertPool()) {
		t.Error("pool is still empty")
	}
}

func TestAppendPEM_Errors(t *testing.T) {
	garbage := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("garbage")})

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrNoCertsFound},
		{"not pem", []byte("mqtt broker"), ErrNoCertsFound},
		{"key only", pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: []byte{1}}), ErrNoCertsFound},
		{"bad certificate", garbage, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AppendPEM(x509.NewCertPool(), tt.data)
			if err == nil {
				t.Fatal("AppendPEM() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("AppendPEM() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClientConfig(t *testing.T) {
	dir := t.TempDir()
	ca, _ := brokerCA(t, dir, "broker")
	cert, key := brokerCA(t, dir, "robot")

	cfg, err := ClientConfig(ClientOptions{
		CAFile:     ca,
		CertFile:   cert,
		KeyFile:    key,
		ServerName: "broker",
	})
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	if cfg.RootCAs == nil {
		t.Error("RootCAs not set from ca_file")
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("Certificates = %d, want 1", len(cfg.Certificates))
	}
	if cfg.ServerName != "broker" {
		t.Errorf("ServerName = %q, want broker", cfg.ServerName)
	}
	if cfg.MinVersion != 0x0303 {
		t.Errorf("MinVersion = %#x, want TLS 1.2", cfg.MinVersion)
	}
}

func TestClientConfig_SystemRoots(t *testing.T) {
	cfg, err := ClientConfig(ClientOptions{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	if cfg.RootCAs != nil {
		t.Error("RootCAs set without ca_file")
	}
	if !cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify not carried over")
	}
}

func TestClientConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	cert, key := brokerCA(t, dir, "robot")

	tests := []struct {
		name    string
		opts    ClientOptions
		wantErr error
	}{
		{"cert without key", ClientOptions{CertFile: cert}, ErrIncompleteKeyPair},
		{"key without cert", ClientOptions{KeyFile: key}, ErrIncompleteKeyPair},
		{"missing ca", ClientOptions{CAFile: filepath.Join(dir, "none.pem")}, os.ErrNotExist},
		{"ca without certificate", ClientOptions{CAFile: key}, ErrNoCertsFound},
		{"mismatched pair", ClientOptions{CertFile: cert, KeyFile: cert}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ClientConfig(tt.opts)
			if err == nil {
				t.Fatal("ClientConfig() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ClientConfig() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClientOptions_Enabled(t *testing.T) {
	tests := []struct {
		opts ClientOptions
		want bool
	}{
		{ClientOptions{}, false},
		{ClientOptions{CAFile: "ca.pem"}, true},
		{ClientOptions{ServerName: "broker"}, true},
		{ClientOptions{InsecureSkipVerify: true}, true},
	}
	for _, tt := range tests {
		if got := tt.opts.Enabled(); got != tt.want {
			t.Errorf("%+v.Enabled() = %v, want %v", tt.opts, got, tt.want)
		}
	}
}
