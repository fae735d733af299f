package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateGroupName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "Main"},
		{name: "with separators", input: "pop-up_layer"},
		{name: "empty", input: "", wantErr: true},
		{name: "space", input: "Main Layer", wantErr: true},
		{name: "slash", input: "a/b", wantErr: true},
		{name: "too long", input: strings.Repeat("g", MaxGroupNameLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGroupName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAssetName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "flat", input: "Dialog"},
		{name: "nested", input: "dialogs/confirm"},
		{name: "dotted", input: "menus/main.v2"},
		{name: "empty", input: "", wantErr: true},
		{name: "absolute", input: "/etc/passwd", wantErr: true},
		{name: "parent", input: "dialogs/../secret", wantErr: true},
		{name: "trailing slash", input: "dialogs/", wantErr: true},
		{name: "null byte", input: "a\x00b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAssetName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
