package registry

// Service is the interface for all long-running server components
type Service interface {
	Start() error
	Stop() error
}
