package pdfio

import (
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
)

func TestValidationModeReachesConfiguration(t *testing.T) {
	assert.Equal(t, model.ValidationStrict, NewPDFCPU(" STRICT ").conf().ValidationMode)
	assert.Equal(t, model.ValidationRelaxed, NewPDFCPU("relaxed").conf().ValidationMode)
	assert.Equal(t, model.ValidationRelaxed, NewPDFCPU("").conf().ValidationMode)
}
