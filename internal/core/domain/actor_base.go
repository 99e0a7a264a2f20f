package domain

import (
	"github.com/asynkron/protoactor-go/actor"
)

type ActorRef actor.PID

// ActorRequestMixIn is embedded by every request message in the
// poll/command protocol. ReplyToRef overrides the implicit sender, which
// the cloud actor needs to route a delayed retry's response back to the
// original requester.
type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

// ActorResponseMixIn carries the error channel of a response message, so
// device list and mutation results travel as plain values either way.
type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}
