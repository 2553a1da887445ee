package sse

import (
	"errors"

	"github.com/ezrec/altairnet/translate"
)

var f = translate.From

var (
	// Buffer errors
	ErrBufferFull = errors.New(f("buffer full"))
)
