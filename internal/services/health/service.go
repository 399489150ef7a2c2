package health

// Service reports liveness and the configured extraction backends.
type Service struct {
	Engine    string
	StoreType string
}

// NewService constructs a new health service.
func NewService(engine, storeType string) *Service {
	return &Service{Engine: engine, StoreType: storeType}
}

// Status returns the health payload.
func (s *Service) Status() map[string]any {
	return map[string]any{
		"ok":     true,
		"engine": s.Engine,
		"store":  s.StoreType,
	}
}
