package cadence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func firing(r Rule, steps int) []int {
	var fired []int
	for i := 0; i < steps; i++ {
		if r.Fires(i) {
			fired = append(fired, i)
		}
	}
	return fired
}

func TestAlways(t *testing.T) {
	require.Equal(t, []int{0, 1, 2, 3}, firing(NewAlways(), 4))
}

func TestOnMultipleOf(t *testing.T) {
	r, err := NewOnMultipleOf(3)
	require.NoError(t, err)
	require.Equal(t, []int{0, 3, 6, 9}, firing(r, 10))
}

func TestExceptMultipleOf(t *testing.T) {
	r, err := NewExceptMultipleOf(3)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 4, 5, 7, 8}, firing(r, 9))
}

func TestPeriodOne(t *testing.T) {
	on, err := NewOnMultipleOf(1)
	require.NoError(t, err)
	require.Len(t, firing(on, 5), 5)

	except, err := NewExceptMultipleOf(1)
	require.NoError(t, err)
	require.Empty(t, firing(except, 5))
}

func TestInvalid(t *testing.T) {
	_, err := NewOnMultipleOf(0)
	require.Error(t, err)
	_, err = NewExceptMultipleOf(-2)
	require.Error(t, err)
	require.Error(t, Rule{Kind: "Sometimes"}.Validate())
}

func TestWithPeriod(t *testing.T) {
	r, err := Rule{Kind: OnMultipleOf}.WithPeriod(4)
	require.NoError(t, err)
	require.Equal(t, 4, r.N)

	a, err := NewAlways().WithPeriod(0)
	require.NoError(t, err)
	require.Equal(t, Always, a.Kind)
}

func TestJSON(t *testing.T) {
	var r Rule
	require.NoError(t, json.Unmarshal(
		[]byte(`{"Kind": "ExceptMultipleOf", "N": 10}`), &r))
	require.Equal(t, Rule{Kind: ExceptMultipleOf, N: 10}, r)
	require.Equal(t, "ExceptMultipleOf(10)", r.String())

	err := json.Unmarshal([]byte(`{"Kind": "OnMultipleOf"}`), &r)
	require.Error(t, err)
}
