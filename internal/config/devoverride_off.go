//go:build !devoverride

package config

// devOverrideCompiled is false in every default build, so ALLOW_DEV_OVERRIDE
// has no effect on a production binary.
const devOverrideCompiled = false
