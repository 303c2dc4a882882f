// Package audit derives audit action and resource names from gRPC method names.
package audit

import "strings"

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// Auth method overrides: session lifecycle calls are audited on resource "session".
var authOverrides = map[string]ActionResource{
	"Login":   {Action: "login", Resource: "session"},
	"Refresh": {Action: "refresh", Resource: "session"},
	"Logout":  {Action: "logout", Resource: "session"},
}

// ParseFullMethod returns action and resource for a gRPC full method (e.g. /booking.room.v1.RoomService/GetRoom).
// Action is a verb: get, list, create, update, delete, or a lowercase method name for others.
// Resource is derived from the service name (e.g. RoomService -> room).
// AuthService Login/Refresh/Logout map to login, refresh, logout on resource "session".
func ParseFullMethod(fullMethod string) ActionResource {
	// fullMethod format: /package.v1.ServiceName/MethodName
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	serviceName := beforeSlash[dot+1:]
	if serviceName == "AuthService" {
		if ar, ok := authOverrides[method]; ok {
			return ar
		}
	}
	return ActionResource{Action: methodToAction(method), Resource: serviceToResource(serviceName)}
}

func serviceToResource(serviceName string) string {
	// RoomService -> room, BookingRequestService -> bookingRequest
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s[0:1]) + s[1:]
}

func methodToAction(method string) string {
	switch {
	case strings.HasPrefix(method, "Get") && method != "Get":
		return "get"
	case strings.HasPrefix(method, "List"):
		return "list"
	case strings.HasPrefix(method, "Create"):
		return "create"
	case strings.HasPrefix(method, "Update"):
		return "update"
	case strings.HasPrefix(method, "Delete"):
		return "delete"
	case strings.HasPrefix(method, "Approve"):
		return "approve"
	case strings.HasPrefix(method, "Reject"):
		return "reject"
	case strings.HasPrefix(method, "Cancel"):
		return "cancel"
	case strings.HasPrefix(method, "Revoke"):
		return "revoke"
	default:
		return strings.ToLower(method)
	}
}
