package ratelimit

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// KeyFunc extrai o identificador do cliente quando não há identidade autenticada.
type KeyFunc func(r *http.Request) string

// ClientAddr identifica o cliente pelo IP. Com trustXFF o primeiro hop de
// X-Forwarded-For (ou X-Real-IP) vence o RemoteAddr; só ligue atrás de um
// proxy que sobrescreve esses headers.
func ClientAddr(trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if trustXFF {
			first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
			if ip := normalizeIP(first); ip != "" {
				return ip
			}
			if ip := normalizeIP(r.Header.Get("X-Real-IP")); ip != "" {
				return ip
			}
		}

		addr := strings.TrimSpace(r.RemoteAddr)
		if host, _, err := net.SplitHostPort(addr); err == nil {
			addr = host
		}
		if ip := normalizeIP(addr); ip != "" {
			return ip
		}
		if addr != "" {
			return addr
		}
		return "unknown"
	}
}

// normalizeIP devolve a forma canônica do IP (IPv4 mapeado em IPv6 vira
// IPv4) ou "" se s não for um IP.
func normalizeIP(s string) string {
	addr, err := netip.ParseAddr(strings.Trim(strings.TrimSpace(s), "[]"))
	if err != nil {
		return ""
	}
	return addr.Unmap().String()
}
