// Package domain contains the core domain entities and value objects for canlog.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (serial ports, file system,
// logging) and contains only the frame format and its invariants.
//
// # Entities
//
//   - [StampedByte]: a byte read from the link plus its burst capture tick
//   - [RecoveredFrame]: a synchronized frame with its wall-clock timestamp
//   - [LogBatch]: the serialized records awaiting the next flush
//   - [Counters]: a point-in-time snapshot of pipeline progress
//
// # Record Format
//
// A frame is serialized by [FormatRecord] as one CSV line:
//
//	14:05:09.123456,AA 55 00 01 02 03 04 05 06 07 08 09 0A 0B 0C 0D 0E 0F 10 11
//
// Batches are appended to files named by [LogFileName] after the wall-clock
// minute of the flush.
package domain
