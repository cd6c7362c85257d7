package bridge

import "fmt"

// Result codes.
const (
	ResOK            = 0 // success
	ResBusiness      = 2 // business rejection: change the request, do not retry it
	ResError         = 4 // validation or technical failure
	ResHTTP          = 5 // provider answered with a non-2xx status
	ResInvalidAction = 8 // unknown action code
	ResFatal         = 9 // configuration failure or unexpected panic outside an operation
)

// Result is the normalized outcome of every operation. Fields that do not
// apply are left as the zero value, never nil.
type Result struct {
	Res       int    `json:"res"`
	Msg       string `json:"msg"`
	ID        string `json:"id"`
	QRData    string `json:"qr_data"`
	Status    string `json:"status"`
	PaymentID string `json:"payment_id"`
	RawJSON   string `json:"raw_json"`
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Res == ResOK
}

// Business reports whether the operation was declined for domain reasons.
func (r Result) Business() bool {
	return r.Res == ResBusiness
}

// Failure builds a Result with only a code and a message.
func Failure(res int, format string, args ...interface{}) Result {
	return Result{Res: res, Msg: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...interface{}) Result {
	return Failure(ResError, format, args...)
}

func technical(op string, err error) Result {
	return Failure(ResError, "%s: technical error: %v", op, err)
}

// recoverResult turns a panic inside an operation into a technical Result.
func recoverResult(op string, out *Result) {
	if r := recover(); r != nil {
		*out = Failure(ResError, "%s: technical error: %v", op, r)
	}
}
