/*
	Copyright 2015 Franc[e]sco (lolisamurai@tfwno.gf)
	This file is part of go-hachi.
	go-hachi is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.
	go-hachi is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.
	You should have received a copy of the GNU General Public License
	along with go-hachi. If not, see <http://www.gnu.org/licenses/>.
*/
package host

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "termloop", cfg.Driver)
	assert.Equal(t, 10, cfg.CyclesPerFrame)
	assert.Equal(t, 60, cfg.TimerHz)
	assert.Equal(t, FaultHalt, cfg.FaultPolicy)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"no cycles", func(c *Config) { c.CyclesPerFrame = 0 }, true},
		{"no timer", func(c *Config) { c.TimerHz = 0 }, true},
		{"fast timer", func(c *Config) { c.TimerHz = 1001 }, true},
		{"negative frames", func(c *Config) { c.Frames = -1 }, true},
		{"bad policy", func(c *Config) { c.FaultPolicy = "explode" }, true},
		{"reset policy", func(c *Config) { c.FaultPolicy = FaultReset }, false},
		{"no stack", func(c *Config) { c.StackSize = 0 }, true},
		{"deep stack", func(c *Config) { c.StackSize = 17 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigSettingsSeed(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Settings().Rand != nil {
		t.Error("expected a nil source without a seed")
	}
	cfg.Seed = 42
	a, b := cfg.Settings().Rand, cfg.Settings().Rand
	assert.Equal(t, a.Int63(), b.Int63())
}
