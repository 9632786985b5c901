// Copyright 2025 DoRobot Labs
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package encoder

// Config is the configuration of the video encoder adapter.
type Config struct {
	Binary        string
	Hardware      bool
	HardwareCodec string
	SoftwareCodec string
}

// DefaultConfig is the default configuration for the video encoder adapter.
var DefaultConfig = Config{
	Binary:        "ffmpeg",
	Hardware:      false,
	HardwareCodec: "h264_rkmpp",
	SoftwareCodec: "libx264",
}

// Option is an option that can be given to the adapter's constructor to
// change its configuration.
type Option func(*Config)

// WithBinary sets the encoder binary to invoke.
func WithBinary(binary string) Option {
	return func(cfg *Config) {
		cfg.Binary = binary
	}
}

// WithHardware enables the hardware encoder path.
func WithHardware(hardware bool) Option {
	return func(cfg *Config) {
		cfg.Hardware = hardware
	}
}

// WithHardwareCodec sets the codec used on the hardware path.
func WithHardwareCodec(codec string) Option {
	return func(cfg *Config) {
		cfg.HardwareCodec = codec
	}
}

// WithSoftwareCodec sets the codec used on the software path.
func WithSoftwareCodec(codec string) Option {
	return func(cfg *Config) {
		cfg.SoftwareCodec = codec
	}
}
