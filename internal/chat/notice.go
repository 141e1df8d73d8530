package chat

import (
	"context"
	"errors"

	"github.com/example/guilda/internal/completion"
)

type NoticeKind string

const (
	NoticeRateLimited    NoticeKind = "rate_limited"
	NoticeQuotaExhausted NoticeKind = "quota_exhausted"
	NoticeFailed         NoticeKind = "failed"
)

const (
	MsgRateLimited    = "Rate limit excedido. Tente novamente em alguns instantes."
	MsgQuotaExhausted = "Créditos insuficientes no Lovable AI."
	MsgFailed         = "Erro ao processar mensagem"
)

// Notice is the single user-visible signal that a reply could not be produced.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

func NoticeFor(err error) Notice {
	switch {
	case errors.Is(err, completion.ErrRateLimited):
		return Notice{Kind: NoticeRateLimited, Message: MsgRateLimited}
	case errors.Is(err, completion.ErrQuotaExhausted):
		return Notice{Kind: NoticeQuotaExhausted, Message: MsgQuotaExhausted}
	case errors.Is(err, context.DeadlineExceeded):
		return Notice{Kind: NoticeFailed, Message: "Erro ao conectar com IA"}
	}
	return Notice{Kind: NoticeFailed, Message: MsgFailed}
}
