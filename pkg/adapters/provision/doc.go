// Package provision provides the downstream task executors.
//
// Each task kind maps to exactly one executor in an explicit registry.
// Order-tier work (service orders, resource orders, activations, inventory)
// is dispatched to external provisioning services over HTTP; validation and
// dependency checking run in-process.
package provision
