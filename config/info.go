package config

import (
	"strings"
	"sync"
)

const (
	ServiceName    = "cwt-verifier"
	ServiceVersion = "0.1.0"
	APIVersion     = "v1"
)

var (
	si   *serviceInfo
	once sync.Once
)

// getServiceInfo provides serviceInfo as a singleton
func getServiceInfo() *serviceInfo {
	once.Do(func() {
		si = &serviceInfo{
			name: ServiceName,
			description: "The CWT Verifier is a RESTful web service that verifies verifiable credentials encoded as" +
				" CBOR Web Tokens and signed by did:web issuers.",
			version:    ServiceVersion,
			apiVersion: APIVersion,
		}
	})

	return si
}

// serviceInfo is intended to be a (mostly) read-only singleton object for static service info
type serviceInfo struct {
	mu          sync.RWMutex
	name        string
	description string
	version     string
	apiBase     string
	apiVersion  string
}

func Name() string {
	return getServiceInfo().name
}

func Description() string {
	return getServiceInfo().description
}

func Version() string {
	return getServiceInfo().version
}

func SetAPIBase(url string) {
	s := getServiceInfo()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiBase = strings.TrimSuffix(url, "/")
}

func GetAPIBase() string {
	s := getServiceInfo()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiBase
}

// GetAPIPath joins a path onto the versioned API base, e.g. http://host/v1/verification.
func GetAPIPath(path string) string {
	return strings.Join([]string{GetAPIBase(), getServiceInfo().apiVersion, strings.TrimPrefix(path, "/")}, "/")
}
