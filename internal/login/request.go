package login

// Request is the tagged variant a boundary builds once from the incoming
// query values.
type Request interface {
	loginRequest()
}

// BeginRequest selects the begin-login phase.
type BeginRequest struct{}

// CallbackRequest selects the provider-callback phase.
type CallbackRequest struct {
	State string
	Code  string
}

func (BeginRequest) loginRequest()    {}
func (CallbackRequest) loginRequest() {}

// ParseRequest classifies the request. Only the presence of both values
// selects the callback phase; a lone state or code falls through to begin,
// which mints a fresh state and restarts the flow.
func ParseRequest(state, code string) Request {
	if state != "" && code != "" {
		return CallbackRequest{State: state, Code: code}
	}
	return BeginRequest{}
}
