package bus

import (
	"errors"

	"github.com/ezrec/altairnet/translate"
)

var f = translate.From

var (
	ErrPortInUse    = errors.New(f("port already mapped"))
	ErrPortReserved = errors.New(f("port reserved by the bus"))
)
