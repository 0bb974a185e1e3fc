// Package ports defines the interfaces that connect the batching core to its
// collaborators.
//
// The dispatcher (internal/app) depends only on these interfaces. Concrete
// adapters live elsewhere:
//
//   - [Transport]: sends one batch body to the store (internal/adapters/http)
//   - [ResponseParser]: decodes the store's reply (internal/response)
//   - [Logger]: structured logging (pkg/log)
package ports
