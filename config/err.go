package config

import (
	"github.com/ezrec/altairnet/translate"
)

var f = translate.From

type ErrSetting string

func (err ErrSetting) Error() string {
	return f("setting %v has the wrong type", string(err))
}
