package mailclient

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const DefaultPort = 25

// EmailCredential is where and as whom to connect. Username empty means no AUTH.
type EmailCredential struct {
	ServerHost   string `json:"server_host" yaml:"host" validate:"required"`
	ServerPort   int    `json:"server_port" yaml:"port" validate:"required,min=1,max=65535"`
	AuthIdentity string `json:"auth_identity" yaml:"authIdentity" validate:"-"` // Authorization identity may be left blank to indicate that it is the same as the username.
	Username     string `json:"username" yaml:"username" validate:"-"`
	Password     string `json:"-" yaml:"password" validate:"required_with=Username"`
	StartTLS     bool   `json:"start_tls" yaml:"startTLS"`
	HeloName     string `json:"helo_name" yaml:"heloName" validate:"omitempty,hostname_rfc1123"`
}

// ParseServer splits "host[:port]", defaulting the port to DefaultPort.
func ParseServer(server string) (host string, port int, err error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", 0, fmt.Errorf("empty smtp server address")
	}

	if !strings.Contains(server, ":") {
		return server, DefaultPort, nil
	}

	host, portStr, err := net.SplitHostPort(server)
	if err != nil {
		return "", 0, fmt.Errorf("invalid smtp server address '%s': %w", server, err)
	}

	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid smtp server port '%s': %w", portStr, err)
	}

	return host, port, nil
}

// Addr is host:port for dialing.
func (c *EmailCredential) Addr() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}
