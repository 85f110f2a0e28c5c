// Package ports defines the interfaces between the capability system's
// layers. Domain and application code depend on these interfaces;
// infrastructure adapters implement them.
package ports
