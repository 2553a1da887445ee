package engine

import (
	"errors"

	"github.com/ezrec/altairnet/translate"
)

var f = translate.From

var (
	// Transport errors
	ErrWouldBlock = errors.New(f("operation would block"))

	// Engine errors
	ErrTimeout      = errors.New(f("request timed out"))
	ErrDNSTimeout   = errors.New(f("name resolution timed out"))
	ErrBodyOverrun  = errors.New(f("body exceeds declared content length"))
	ErrBodyUnderrun = errors.New(f("body ended short of declared content length"))
	ErrNoResponse   = errors.New(f("connection closed before response headers"))
	ErrFrameLost    = errors.New(f("no room to push back frame"))
)
