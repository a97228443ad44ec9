package robot

// Response is the decoded response body, returned as received.
type Response map[string]any

// ErrCode returns the "errcode" field when it is present and numeric.
func (r Response) ErrCode() (int, bool) {
	switch v := r["errcode"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

func (r Response) ErrMsg() string {
	s, _ := r["errmsg"].(string)
	return s
}

// OK reports whether the service accepted the message.
func (r Response) OK() bool {
	code, ok := r.ErrCode()
	return ok && code == 0
}
