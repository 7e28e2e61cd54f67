package log

import (
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
)

// badKey marks a value that has no usable key, following the logr convention.
const badKey = "!BADKEY"

// toFields turns loosely typed key/value pairs into zap fields. A bare error
// or zap.Field may appear at any key position and consumes no value.
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); i++ {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			continue
		case error:
			fields = append(fields, zap.Error(v))
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(badKey, args[i]))
			break
		}

		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%s(%v)", badKey, args[i])
		}
		fields = append(fields, field(key, args[i+1]))
		i++
	}
	return fields
}

func field(key string, val any) zap.Field {
	if b, ok := val.([]byte); ok {
		// Payloads are usually text; keep them readable.
		if utf8.Valid(b) {
			return zap.ByteString(key, b)
		}
		return zap.Binary(key, b)
	}
	return zap.Any(key, val)
}
