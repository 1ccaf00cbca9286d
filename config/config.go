package config

import (
	"time"
)

// Smtp is the relay the invoices are sent through.
type Smtp struct {
	Server   string `yaml:"server"` // host or host:port
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	StartTLS bool   `yaml:"startTLS"`
	HeloName string `yaml:"heloName"`
}

type Input struct {
	Encoding  string `yaml:"encoding" validate:"required"`
	SniffSize int    `yaml:"sniffSize" validate:"gte=0"`
}

type Message struct {
	// Greeting is used for every group instead of asking, backslash escapes are expanded.
	Greeting string            `yaml:"greeting"`
	Details  string            `yaml:"details" validate:"required"`
	Footer   string            `yaml:"footer"`
	Headers  map[string]string `yaml:"headers"`
	IDDomain string            `yaml:"idDomain" validate:"omitempty,fqdn"`
}

type Payee struct {
	Name    string `yaml:"name"`
	Bank    string `yaml:"bank"`
	Account string `yaml:"account"`
}

type Redis struct {
	Mode       string   `yaml:"mode" validate:"required,oneof=single sentinel cluster"`
	Address    []string `yaml:"address" validate:"required,min=1,dive,required"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	DB         int      `yaml:"db" validate:"gte=0"`
	MasterName string   `yaml:"masterName" validate:"required_if=Mode sentinel"`
}

type Journal struct {
	Type      string        `yaml:"type" validate:"required,oneof=none file redis"`
	Path      string        `yaml:"path" validate:"required_if=Type file"`
	Retention time.Duration `yaml:"retention" validate:"gte=0"`
	Prefix    string        `yaml:"prefix"`
	Redis     *Redis        `yaml:"redis" validate:"required_if=Type redis"`
}

// Log is written to File only; without a file the run logs nothing.
type Log struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `yaml:"file"`
}

type Tracing struct {
	JaegerEndpoint string `yaml:"jaegerEndpoint" validate:"omitempty,url"`
}

// Config contains application config
type Config struct {
	Smtp          Smtp    `yaml:"smtp"`
	From          string  `yaml:"from"`
	SubjectPrefix string  `yaml:"subjectPrefix"`
	GroupBy       string  `yaml:"groupBy"`
	Input         Input   `yaml:"input"`
	Message       Message `yaml:"message"`
	Payee         Payee   `yaml:"payee"`
	Journal       Journal `yaml:"journal"`
	Log           Log     `yaml:"log"`
	Tracing       Tracing `yaml:"tracing"`
}
