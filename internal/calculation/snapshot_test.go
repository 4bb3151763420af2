package calculation

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	policydomain "github.com/smallbiznis/comiso/internal/policy/domain"
	resolutiondomain "github.com/smallbiznis/comiso/internal/resolution/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSnapshot_CapturesRuleFields(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	rule := policydomain.CommissionRule{
		ID:              node.Generate(),
		Code:            "partner-premium",
		CalculationType: policydomain.Tiered,
		TieredRates: policydomain.TieredRates{
			{Threshold: dec(t, "0"), Rate: dec(t, "5")},
			{Threshold: dec(t, "100000"), Rate: dec(t, "8")},
		},
	}
	resolved := &resolutiondomain.ResolvedPolicy{
		Rule:  rule,
		Level: resolutiondomain.LevelPartnerSpecific,
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	applied := Calculate(dec(t, "250000"), &rule)
	snap := BuildSnapshot(resolved, applied, at)

	assert.Equal(t, rule.ID.String(), snap.PolicyID)
	assert.Equal(t, "partner-premium", snap.PolicyCode)
	assert.Equal(t, policydomain.Tiered, snap.CalculationType)
	assert.Equal(t, resolutiondomain.LevelPartnerSpecific, snap.ResolutionLevel)
	assert.Equal(t, at, snap.ResolvedAt)
	assert.True(t, dec(t, "20000").Equal(snap.AppliedCommissionAmount))
	assert.Len(t, snap.TieredRates, 2)
}

func TestBuildSnapshot_IsolatedFromLaterRuleEdits(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	rate := dec(t, "10")
	rule := policydomain.CommissionRule{
		ID:              node.Generate(),
		Code:            "default-pct",
		CalculationType: policydomain.Percentage,
		Rate:            &rate,
		TieredRates: policydomain.TieredRates{
			{Threshold: dec(t, "0"), Rate: dec(t, "5")},
		},
	}
	resolved := &resolutiondomain.ResolvedPolicy{
		Rule:  rule,
		Level: resolutiondomain.LevelDefault,
	}

	snap := BuildSnapshot(resolved, Calculate(dec(t, "1000"), &rule), time.Now().UTC())

	// Mutate the source rule after the snapshot is taken.
	newRate := dec(t, "99")
	rule.Rate = &newRate
	rule.TieredRates[0].Rate = dec(t, "99")
	*resolved = resolutiondomain.ResolvedPolicy{}

	require.NotNil(t, snap.Rate)
	assert.True(t, dec(t, "10").Equal(*snap.Rate))
	assert.True(t, dec(t, "5").Equal(snap.TieredRates[0].Rate))
	assert.Equal(t, "default-pct", snap.PolicyCode)
}
