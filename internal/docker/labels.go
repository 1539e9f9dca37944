package docker

import "fmt"

// BuildWebLabels returns the Traefik label set for a service with web
// access enabled, per the reverse-proxy label contract: routing rule,
// TLS cert resolver, optional path-prefix stripping, and the
// load-balancer target port.
func BuildWebLabels(routerName, host, path string, exposedPort int) map[string]string {
	labels := map[string]string{
		"traefik.enable": "true",
	}

	rule := fmt.Sprintf("Host(`%s`)", host)
	if path != "" {
		rule = fmt.Sprintf("Host(`%s`) && PathPrefix(`%s`)", host, path)
		middlewareName := routerName + "-strip"
		labels[fmt.Sprintf("traefik.http.middlewares.%s.stripprefix.prefixes", middlewareName)] = path
		labels[fmt.Sprintf("traefik.http.routers.%s.middlewares", routerName)] = middlewareName
	}

	labels[fmt.Sprintf("traefik.http.routers.%s.rule", routerName)] = rule
	labels[fmt.Sprintf("traefik.http.routers.%s.tls.certresolver", routerName)] = "le"

	if exposedPort > 0 {
		labels[fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port", routerName)] = fmt.Sprintf("%d", exposedPort)
	}

	return labels
}

// MergeLabels combines a base label set with any additional labels, later
// maps taking precedence.
func MergeLabels(sets ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, set := range sets {
		for k, v := range set {
			merged[k] = v
		}
	}
	return merged
}
