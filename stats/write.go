package stats

import (
	"strconv"
	"time"
)

// graphite plaintext protocol: "<prefix><key> <value> <unix ts>\n"

func writeLine(buf, prefix, key []byte, now time.Time, appendVal func([]byte) []byte) []byte {
	buf = append(buf, prefix...)
	buf = append(buf, key...)
	buf = append(buf, ' ')
	buf = appendVal(buf)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, now.Unix(), 10)
	return append(buf, '\n')
}

func WriteFloat64(buf, prefix, key []byte, val float64, now time.Time) []byte {
	return writeLine(buf, prefix, key, now, func(b []byte) []byte {
		return strconv.AppendFloat(b, val, 'f', -1, 64)
	})
}

func WriteUint32(buf, prefix, key []byte, val uint32, now time.Time) []byte {
	return writeLine(buf, prefix, key, now, func(b []byte) []byte {
		return strconv.AppendUint(b, uint64(val), 10)
	})
}

func WriteInt32(buf, prefix, key []byte, val int32, now time.Time) []byte {
	return writeLine(buf, prefix, key, now, func(b []byte) []byte {
		return strconv.AppendInt(b, int64(val), 10)
	})
}

func WriteUint64(buf, prefix, key []byte, val uint64, now time.Time) []byte {
	return writeLine(buf, prefix, key, now, func(b []byte) []byte {
		return strconv.AppendUint(b, val, 10)
	})
}
