// Copyright 2025, Adeline Murphy

package io

import (
	"errors"

	"github.com/adeline-murphy/rum/translate"
)

var f = translate.From

var (
	// Channel errors
	ErrChannelClosed = errors.New(f("channel closed"))
	ErrRuneInvalid   = errors.New(f("rune invalid"))
)
