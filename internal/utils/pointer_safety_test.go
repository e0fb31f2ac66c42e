package utils_test

import (
	"testing"

	"github.com/jrsteele09/sahasik/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	require.Equal(t, 0, utils.Value[int](nil))
	require.Equal(t, "x", utils.Value(utils.Ptr("x")))
}

func TestPtrIf(t *testing.T) {
	require.Nil(t, utils.PtrIf(false, 3))
	require.Equal(t, 3, *utils.PtrIf(true, 3))
	// an explicit zero is still a change
	require.Equal(t, "", *utils.PtrIf(true, ""))
}

func TestAssign(t *testing.T) {
	name := "Fiqih"
	utils.Assign(&name, nil)
	require.Equal(t, "Fiqih", name)

	utils.Assign(&name, utils.Ptr("Tafsir"))
	require.Equal(t, "Tafsir", name)
}
