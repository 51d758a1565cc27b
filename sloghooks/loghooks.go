// Package sloghooks reports cache events to a *slog.Logger.
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/assetram"
	"github.com/unkn0wn-root/assetram/internal/util"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery    uint64
	BypassEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	// Keys embed source paths and tenant discriminators.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr    atomic.Uint64
	bypassCtr atomic.Uint64
}

var _ assetram.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return util.ShortHash(k)
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(mode assetram.Mode, key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("assetram.hit",
		"mode", mode.String(),
		"key", h.redact(key))
}

func (h *Hooks) Miss(mode assetram.Mode, key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("assetram.miss",
		"mode", mode.String(),
		"key", h.redact(key))
}

func (h *Hooks) Bypass(key string) {
	if h.l == nil || !sample(h.opts.BypassEvery, &h.bypassCtr) {
		return
	}
	h.l.Debug("assetram.bypass",
		"key", h.redact(key))
}

func (h *Hooks) Stored(key string, bytes int, total int64) {
	if h.l == nil {
		return
	}
	h.l.Debug("assetram.stored",
		"key", h.redact(key),
		"bytes", bytes,
		"total_bytes", total)
}

func (h *Hooks) ComputeError(mode assetram.Mode, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("assetram.compute_error",
		"mode", mode.String(),
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) ExternalUnavailable(revision string) {
	if h.l == nil {
		return
	}
	h.l.Warn("assetram.external_unavailable",
		"revision", revision,
		"msg", "revision set without an external store; serving from memory")
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil {
		return
	}
	h.l.Info("assetram.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("assetram.provider_set_rejected",
		"key", h.redact(storageKey))
}
