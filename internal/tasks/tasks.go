package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeIssuanceExpire = "issuance:expire:check"
)

type ExpireIssuancePayload struct{}

func NewIssuanceExpireTask(opts ...asynq.Option) (*asynq.Task, error) {
	payload := ExpireIssuancePayload{}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	uniqueOpt := asynq.Unique(1 * time.Hour)
	allOpts := append(opts, uniqueOpt)

	return asynq.NewTask(TypeIssuanceExpire, payloadBytes, allOpts...), nil
}
