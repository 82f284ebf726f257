package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama/mocks"
)

type request struct {
	RunID string `json:"run_id"`
	Count int    `json:"count"`
}

func TestJSONHandler(t *testing.T) {
	processErr := errors.New("render failed")

	cases := []struct {
		name        string
		payload     string
		markInvalid bool
		processErr  error
		wantMark    bool
		wantErr     bool
		wantCalled  bool
	}{
		{"valid", `{"run_id":"r1","count":2}`, false, nil, true, false, true},
		{"bad json marked", `{`, true, nil, true, false, false},
		{"bad json left", `{`, false, nil, false, false, false},
		{"invalid marked", `{"run_id":"","count":1}`, true, nil, true, false, false},
		{"process error", `{"run_id":"r1","count":1}`, true, processErr, false, true, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			called := false
			h := &JSONHandler[request]{
				Validate: func(r *request) error {
					if r.RunID == "" {
						return errors.New("missing run_id")
					}
					return nil
				},
				Process: func(ctx context.Context, r *request) error {
					called = true
					return c.processErr
				},
				MarkInvalid: c.markInvalid,
			}
			mark, err := h.HandleMessage(context.Background(), []byte(c.payload))
			if mark != c.wantMark || (err != nil) != c.wantErr || called != c.wantCalled {
				t.Fatalf("mark=%v err=%v called=%v; want mark=%v err=%v called=%v",
					mark, err, called, c.wantMark, c.wantErr, c.wantCalled)
			}
		})
	}
}

func TestProducerSendJSON(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var r request
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		if r.RunID != "r9" || r.Count != 3 {
			return fmt.Errorf("unexpected payload %s", val)
		}
		return nil
	})

	p := NewProducerFrom(mock, "slide-renders")
	if _, _, err := p.SendJSON("r9", request{RunID: "r9", Count: 3}); err != nil {
		t.Fatalf("SendJSON error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
