// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [ByteSource]: an open serial link delivering raw bytes
//   - [PortOpener]: opens a ByteSource from a port name and baud rate
//   - [BatchSink]: appends serialized records to a named log file
//   - [StatusRepository]: persists and loads the status snapshot
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (serial port, file system, etc.).
//
// This separation enables:
//   - Testing the pipeline with in-memory byte streams
//   - Swapping infrastructure without changing acquisition logic
//   - Clear boundaries and dependency direction
package ports
