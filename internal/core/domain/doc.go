// Package domain defines the core data model shared by the replay and live
// paths of snakeview.
//
// Domain models are plain values without any IO dependencies:
//
//   - SectionSample: kinematics and dynamics of one robot segment joint
//   - HeadPose: position and heading of the robot head
//   - FrameRecord: one timestamped sample of the whole robot
//   - Snapshot: one frame copied out of the shared-memory region
//   - Errors: coded error kinds for the file, mapping and protocol layers
//
// All positions, velocities, forces and torques are kept in raw simulation
// units. Scaling for display belongs to the presentation layer.
package domain
