package cmd

import (
	"errors"
	"testing"

	"github.com/allbin/go-boardlink"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestParseParity(t *testing.T) {
	tests := []struct {
		in      string
		want    boardlink.Parity
		wantErr bool
	}{
		{"", boardlink.ParityNone, false},
		{"none", boardlink.ParityNone, false},
		{"ODD", boardlink.ParityOdd, false},
		{"e", boardlink.ParityEven, false},
		{"mark", 0, true},
	}

	for _, tt := range tests {
		got, err := parseParity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseParity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, boardlink.ErrInvalidConfig) {
			t.Errorf("parseParity(%q) error = %v, want ErrInvalidConfig", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseParity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFlowControl(t *testing.T) {
	tests := []struct {
		in      string
		want    boardlink.FlowControl
		wantErr bool
	}{
		{"none", boardlink.FlowControlNone, false},
		{"rtscts", boardlink.FlowControlRTSCTS, false},
		{"Hardware", boardlink.FlowControlRTSCTS, false},
		{"xonxoff", 0, true},
	}

	for _, tt := range tests {
		got, err := parseFlowControl(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFlowControl(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseFlowControl(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseUSBID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{"2341", 0x2341, false},
		{"0x2A03", 0x2a03, false},
		{" 303a ", 0x303a, false},
		{"12345", 0, true},
		{"zz", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseUSBID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseUSBID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseUSBID(%q) = 0x%04x, want 0x%04x", tt.in, got, tt.want)
		}
	}
}

func requestCommand(t *testing.T, flags ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addRequestFlags(cmd)
	if err := cmd.Flags().Parse(flags); err != nil {
		t.Fatalf("Parse(%v) error = %v", flags, err)
	}
	return cmd
}

func TestPortRequest(t *testing.T) {
	t.Cleanup(viper.Reset)

	tests := []struct {
		name    string
		path    string
		flags   []string
		want    boardlink.PortRequest
		wantErr bool
	}{
		{
			name: "path only",
			path: "/dev/ttyACM0",
			want: boardlink.PortRequest{Path: "/dev/ttyACM0"},
		},
		{
			name:  "vendor filter",
			flags: []string{"--vid", "2341"},
			want:  boardlink.PortRequest{Filters: []boardlink.USBFilter{{VendorID: 0x2341}}},
		},
		{
			name:  "vendor and product",
			flags: []string{"--vid", "0x2341", "--pid", "0043"},
			want:  boardlink.PortRequest{Filters: []boardlink.USBFilter{{VendorID: 0x2341, ProductID: 0x0043}}},
		},
		{
			name:    "product without vendor",
			flags:   []string{"--pid", "0043"},
			wantErr: true,
		},
		{
			name:    "bad vendor",
			flags:   []string{"--vid", "arduino"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := portRequest(requestCommand(t, tt.flags...), tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("portRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.Path != tt.want.Path || len(got.Filters) != len(tt.want.Filters) {
				t.Fatalf("portRequest() = %+v, want %+v", got, tt.want)
			}
			for i := range got.Filters {
				if got.Filters[i] != tt.want.Filters[i] {
					t.Errorf("Filters[%d] = %+v, want %+v", i, got.Filters[i], tt.want.Filters[i])
				}
			}
		})
	}
}

func TestPortRequestSimulateIgnoresPath(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("simulate", true)

	got, err := portRequest(requestCommand(t, "--vid", "2341"), "/dev/ttyACM0")
	if err != nil {
		t.Fatalf("portRequest() error = %v", err)
	}
	if got.Path != "" || len(got.Filters) != 0 {
		t.Errorf("portRequest() = %+v, want an empty request", got)
	}
}

func TestControllerOptions(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("baud", 115200)
	viper.Set("data-bits", 7)
	viper.Set("stop-bits", 2)
	viper.Set("parity", "even")
	viper.Set("flow-control", "rtscts")
	viper.Set("read-timeout", "500ms")

	opts, err := controllerOptions(nil, nil)
	if err != nil {
		t.Fatalf("controllerOptions() error = %v", err)
	}
	config, err := boardlink.NewConfig(opts...)
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}

	if config.BaudRate != 115200 || config.DataBits != 7 || config.StopBits != 2 {
		t.Errorf("config = %d %d %d, want 115200 7 2", config.BaudRate, config.DataBits, config.StopBits)
	}
	if config.Parity != boardlink.ParityEven {
		t.Errorf("Parity = %v, want E", config.Parity)
	}
	if config.FlowControl != boardlink.FlowControlRTSCTS {
		t.Errorf("FlowControl = %v, want RTS/CTS", config.FlowControl)
	}
	if config.ReadTimeout.Milliseconds() != 500 {
		t.Errorf("ReadTimeout = %v, want 500ms", config.ReadTimeout)
	}
}

func TestControllerOptionsRejectsBadParity(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("parity", "space")

	if _, err := controllerOptions(nil, nil); !errors.Is(err, boardlink.ErrInvalidConfig) {
		t.Errorf("controllerOptions() error = %v, want ErrInvalidConfig", err)
	}
}
