package models

type DeliveryStatus string

const (
	// DeliveryStatusSent means the robot accepted the message (errcode 0).
	DeliveryStatusSent DeliveryStatus = "sent"
	// DeliveryStatusRejected means the robot answered with a non-zero errcode.
	DeliveryStatusRejected DeliveryStatus = "rejected"
	// DeliveryStatusFailed means no usable response: transport or decode error.
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// Delivery records one dispatch to one robot.
type Delivery struct {
	ID         string                 `json:"id"`
	Robot      string                 `json:"robot"`
	MsgType    string                 `json:"msgtype"`
	Status     DeliveryStatus         `json:"status"`
	ErrCode    *int                   `json:"errcode,omitempty"`
	ErrMsg     string                 `json:"errmsg,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Response   map[string]interface{} `json:"response,omitempty"`
	DurationMS int64                  `json:"duration_ms"`
	CreatedAt  int64                  `json:"created_at"`
}
