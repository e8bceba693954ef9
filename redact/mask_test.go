package redact_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/curve/redact"
)

func TestMaskDefaultString(t *testing.T) {
	require.Equal(t, "abcd****", redact.Mask("abcdefgh", redact.TypeCustom, redact.LevelWeak))
	require.Equal(t, "ab******", redact.Mask("abcdefgh", redact.TypeCustom, redact.LevelNormal))
	require.Equal(t, "********", redact.Mask("abcdefgh", redact.TypeCustom, redact.LevelStrong))
}

func TestMaskName(t *testing.T) {
	require.Equal(t, "J*******", redact.Mask("John Doe", redact.TypeName, redact.LevelWeak))
	require.Equal(t, "J******e", redact.Mask("John Doe", redact.TypeName, redact.LevelNormal))
	require.Equal(t, "********", redact.Mask("John Doe", redact.TypeName, redact.LevelStrong))
}

func TestMaskEmail(t *testing.T) {
	require.Equal(t, "joh*@example.com", redact.Mask("john@example.com", redact.TypeEmail, redact.LevelWeak))
	require.Equal(t, "jo**@ex*****.com", redact.Mask("john@example.com", redact.TypeEmail, redact.LevelNormal))
	require.Equal(t, "****@*******.com", redact.Mask("john@example.com", redact.TypeEmail, redact.LevelStrong))
}

func TestMaskEmailWeakBelowThresholdUnchanged(t *testing.T) {
	require.Equal(t, "jo@example.com", redact.Mask("jo@example.com", redact.TypeEmail, redact.LevelWeak))
}

func TestMaskPhone(t *testing.T) {
	require.Equal(t, "123456****", redact.Mask("1234567890", redact.TypePhone, redact.LevelWeak))
	require.Equal(t, "123****890", redact.Mask("1234567890", redact.TypePhone, redact.LevelNormal))
	require.Equal(t, "12********", redact.Mask("1234567890", redact.TypePhone, redact.LevelStrong))
}

func TestMaskPhoneWeakBelowThresholdUnchanged(t *testing.T) {
	require.Equal(t, "123", redact.Mask("123", redact.TypePhone, redact.LevelWeak))
}
