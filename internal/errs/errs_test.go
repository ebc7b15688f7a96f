package errs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/willabides/yl/internal/errs"
)

func TestErrorFormatting(t *testing.T) {
	e := errs.New(errs.Runtime, errs.Position{Line: 3, Column: 7}, "while doing a thing", "something broke")
	assert.Equal(t, "3:7: RUNTIME_ERROR: while doing a thing: something broke", e.Error())
}

func TestAugmentFillsZeroValues(t *testing.T) {
	e := errs.New(errs.Parser, errs.Position{}, "", "bad input")
	augmented := errs.Augment(e, errs.Position{Line: 1, Column: 2}, "while parsing")
	assert.Equal(t, errs.Position{Line: 1, Column: 2}, augmented.Position)
	assert.Equal(t, "while parsing", augmented.Context)
}

func TestAugmentKeepsExistingValues(t *testing.T) {
	e := errs.New(errs.Parser, errs.Position{Line: 5, Column: 6}, "already set", "bad input")
	augmented := errs.Augment(e, errs.Position{Line: 1, Column: 2}, "while parsing")
	assert.Equal(t, errs.Position{Line: 5, Column: 6}, augmented.Position)
	assert.Equal(t, "already set", augmented.Context)
}
