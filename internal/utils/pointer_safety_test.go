package utils_test

import (
	"testing"

	"github.com/jrsteele09/mergington-activities/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestNonEmpty(t *testing.T) {
	require.Nil(t, utils.NonEmpty(""))
	require.Equal(t, "https://avatars/1", *utils.NonEmpty("https://avatars/1"))
}
