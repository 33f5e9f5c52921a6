package interfaces

// ApplicationContext is the transport-agnostic request context handed to
// controllers. Ctx carries the underlying framework context (gin), Body the
// parsed request payload.
type ApplicationContext[T any] struct {
	Ctx        interface{}
	Body       *T
	Keys       map[string]any
	Header     map[string][]string
	DeviceID   string
	DeviceName string
	UserAgent  string
}

func (ac *ApplicationContext[T]) GetHeader(key string) *string {
	values, ok := ac.Header[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func (ac *ApplicationContext[T]) SetContextData(key string, value any) {
	if ac.Keys == nil {
		ac.Keys = map[string]any{}
	}
	ac.Keys[key] = value
}

func (ac *ApplicationContext[T]) GetContextData(key string) any {
	if ac.Keys == nil {
		return nil
	}
	return ac.Keys[key]
}

func (ac *ApplicationContext[T]) GetStringContextData(key string) string {
	value, ok := ac.GetContextData(key).(string)
	if !ok {
		return ""
	}
	return value
}

func (ac *ApplicationContext[T]) GetBoolContextData(key string) bool {
	value, ok := ac.GetContextData(key).(bool)
	if !ok {
		return false
	}
	return value
}
