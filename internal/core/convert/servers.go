package convert

import "github.com/barysiuk/duckport/internal/core/plugin"

// MapServers converts source server definitions into target descriptors.
// It returns nil for an absent or empty mapping so that writers can skip the
// server config entirely. Empty args, env and headers are never copied.
func MapServers(servers map[string]plugin.MCPServer, profile *Profile) map[string]ServerDescriptor {
	if len(servers) == 0 {
		return nil
	}

	out := make(map[string]ServerDescriptor, len(servers))
	for name, s := range servers {
		out[name] = mapServer(s, profile)
	}
	return out
}

func mapServer(s plugin.MCPServer, profile *Profile) ServerDescriptor {
	switch {
	case s.Command != "":
		d := ServerDescriptor{Type: profile.LocalServerType, Command: s.Command}
		if len(s.Args) > 0 {
			d.Args = append([]string(nil), s.Args...)
		}
		if len(s.Env) > 0 {
			d.Env = copyMap(s.Env)
		}
		return d
	case s.URL != "":
		d := ServerDescriptor{Type: profile.RemoteServerType, URL: s.URL}
		if profile.KeepRemoteType && s.Type != "" && s.Type != "stdio" {
			d.Type = s.Type
		}
		if len(s.Headers) > 0 {
			d.Headers = copyMap(s.Headers)
		}
		return d
	default:
		return ServerDescriptor{}
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
