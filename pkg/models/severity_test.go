package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinConcentrationSeverity(t *testing.T) {
	assert.Equal(t, SeverityOK, BinConcentrationSeverity(0.19))
	assert.Equal(t, SeverityInfo, BinConcentrationSeverity(0.20))
	assert.Equal(t, SeverityMild, BinConcentrationSeverity(0.25))
	assert.Equal(t, SeveritySevere, BinConcentrationSeverity(0.40))
	assert.Equal(t, SeveritySevere, BinConcentrationSeverity(1.0))
}

func TestOutlierSeverity(t *testing.T) {
	assert.Equal(t, SeverityOK, OutlierSeverity(0.0))
	assert.Equal(t, SeverityInfo, OutlierSeverity(0.05))
	assert.Equal(t, SeverityMild, OutlierSeverity(0.10))
	assert.Equal(t, SeveritySevere, OutlierSeverity(0.20))
}

func TestMajorityShareSeverity(t *testing.T) {
	assert.Equal(t, SeverityOK, MajorityShareSeverity(0.50))
	assert.Equal(t, SeverityInfo, MajorityShareSeverity(0.60))
	assert.Equal(t, SeverityMild, MajorityShareSeverity(0.70))
	assert.Equal(t, SeveritySevere, MajorityShareSeverity(0.95))
}

func TestImbalanceSeverity(t *testing.T) {
	assert.Equal(t, SeverityOK, ImbalanceSeverity(1.0))
	assert.Equal(t, SeverityInfo, ImbalanceSeverity(3))
	assert.Equal(t, SeverityMild, ImbalanceSeverity(5))
	assert.Equal(t, SeveritySevere, ImbalanceSeverity(10))
	assert.Equal(t, SeveritySevere, ImbalanceSeverity(math.Inf(1)))
}
