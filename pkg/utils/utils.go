package utils

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Validates given config value against allowed default one.
func GraterOrEqDefOr[T int | time.Duration](val T, defaultVal T) T {
	if val <= defaultVal {
		return defaultVal
	}

	return val
}

type Parsable interface {
	string | int | bool | time.Duration | time.Location
}

func ParseEnvOrPanic[T Parsable](key string) T {
	return ParseOrPanic[T](os.Getenv(key))
}

// Parses env value by key or returns default one when the key is unset or empty.
func ParseEnvOr[T Parsable](key string, defaultVal T) T {
	value, found := os.LookupEnv(key)
	if !found || value == "" {
		return defaultVal
	}

	return ParseOrPanic[T](value)
}

func ParseOrPanic[T Parsable](value string) T {
	tmp := new(T)
	switch any(*tmp).(type) {
	case string:
		return any(value).(T)
	case int:
		if val, err := strconv.Atoi(value); err != nil {
			log.Panic(err)
		} else {
			return any(val).(T)
		}
	case bool:
		if val, err := strconv.ParseBool(value); err != nil {
			log.Panic(err)
		} else {
			return any(val).(T)
		}
	case time.Duration:
		if val, err := time.ParseDuration(value); err != nil {
			log.Panic(err)
		} else {
			return any(val).(T)
		}
	case time.Location:
		if val, err := time.LoadLocation(value); err != nil {
			log.Panic(err)
		} else {
			return any(*val).(T)
		}
	default:
		log.Panicf("unsupported type of value %s", value)
	}

	return *tmp
}
