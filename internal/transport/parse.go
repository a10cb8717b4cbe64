package transport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/penovate/penstream/internal/pen"
)

// lineFields is the column count of one sample line from the firmware:
// timestamp (ms), six motion values per IMU times two, pressure.
const lineFields = 14

// ParseLine decodes one comma-separated sample line:
//
//	t_ms,ax1,ay1,az1,gx1,gy1,gz1,ax2,ay2,az2,gx2,gy2,gz2,p
//
// The firmware streams the timestamp as fractional milliseconds since boot;
// it is converted to nanoseconds here. Value-range validation (NaN checks,
// timestamp ordering) is the pipeline's job, not the decoder's.
func ParseLine(line string) (pen.Sample, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != lineFields {
		return pen.Sample{}, fmt.Errorf("transport: expected %d fields, got %d in %q",
			lineFields, len(fields), line)
	}

	var vals [lineFields]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return pen.Sample{}, fmt.Errorf("transport: field %d: %w", i, err)
		}
		vals[i] = v
	}

	return pen.Sample{
		TSUnixNanos: int64(vals[0] * 1e6),
		Tip: pen.MotionReading{
			AccelX: vals[1], AccelY: vals[2], AccelZ: vals[3],
			GyroX: vals[4], GyroY: vals[5], GyroZ: vals[6],
		},
		Grip: pen.MotionReading{
			AccelX: vals[7], AccelY: vals[8], AccelZ: vals[9],
			GyroX: vals[10], GyroY: vals[11], GyroZ: vals[12],
		},
		Pressure: vals[13],
	}, nil
}
