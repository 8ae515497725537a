package api

type Status struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (s Status) GetStatus() Status {
	return s
}
