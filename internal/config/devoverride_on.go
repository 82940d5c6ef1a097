//go:build devoverride

package config

const devOverrideCompiled = true
