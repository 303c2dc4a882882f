package logger

import (
	"strconv"

	"go.uber.org/zap"
)

// UserID is the numeric user id field.
func UserID(v int64) zap.Field { return zap.String("user_id", strconv.FormatInt(v, 10)) }

// OrgID is the tenant key field.
func OrgID(v string) zap.Field { return zap.String("org_id", v) }

// Scope is the authentication scope field (legacy, platform, organization).
func Scope(v string) zap.Field { return zap.String("scope", v) }

// JTI is the access token id field. Token ids are not secrets; the tokens themselves never go to logs.
func JTI(v string) zap.Field { return zap.String("jti", v) }

// Component names the module emitting the entry.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op names the operation in progress.
func Op(v string) zap.Field { return zap.String("op", v) }

// Reason is the internal cause of a rejected authentication. Never returned to callers.
func Reason(v string) zap.Field { return zap.String("reason", v) }

// Method is the gRPC full method.
func Method(v string) zap.Field { return zap.String("method", v) }

// Count is a generic row/item count.
func Count(key string, v int64) zap.Field { return zap.Int64(key, v) }

// Err is the error field.
func Err(err error) zap.Field { return zap.Error(err) }
