package auth

// 認証イベント種別
const (
	EventRegister = "register"
	EventLogin    = "login"
	EventVerify   = "verify"
)

// 認証イベントの結果
const (
	OutcomeSuccess            = "success"
	OutcomeFailure            = "failure"
	OutcomeDuplicate          = "duplicate"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidRequest     = "invalid_request"
	OutcomeError              = "error"
)

// EventRecorder は認証イベントの記録先。metrics.Collectorが実装する。
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthEvent(string, string) {}
