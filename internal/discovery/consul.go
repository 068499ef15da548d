// Package discovery registers the quiz HTTP service with Consul.
package discovery

import (
	"fmt"
	"net"
	"strconv"

	"github.com/golang/glog"
	"github.com/hashicorp/consul/api"
)

// Registration describes the service instance to announce.
type Registration struct {
	ServiceID   string
	ServiceName string
	Address     string
	// ListenAddr is the HTTP listen address, e.g. ":8080"; its port is
	// announced.
	ListenAddr string
	Tags       []string
}

// agent is the subset of *api.Agent used for registration.
type agent interface {
	ServiceRegister(reg *api.AgentServiceRegistration) error
	ServiceDeregister(serviceID string) error
}

// ServiceRegistry registers and deregisters the service with a Consul agent.
type ServiceRegistry struct {
	agent agent
	reg   Registration
}

// NewServiceRegistry creates a registry talking to the Consul agent at address.
func NewServiceRegistry(address string, reg Registration) (*ServiceRegistry, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = address

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %w", err)
	}
	return &ServiceRegistry{agent: client.Agent(), reg: reg}, nil
}

// Register announces the HTTP endpoint with a /health check.
func (sr *ServiceRegistry) Register() error {
	registration, err := sr.registration()
	if err != nil {
		return err
	}
	if err := sr.agent.ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register HTTP service with Consul: %w", err)
	}
	glog.Infof("registered %s (%s) with Consul at %s:%d", sr.reg.ServiceName, registration.ID, registration.Address, registration.Port)
	return nil
}

// Deregister removes the service from the agent.
func (sr *ServiceRegistry) Deregister() error {
	if err := sr.agent.ServiceDeregister(sr.serviceID()); err != nil {
		return fmt.Errorf("failed to deregister HTTP service: %w", err)
	}
	glog.Infof("deregistered %s from Consul", sr.serviceID())
	return nil
}

func (sr *ServiceRegistry) serviceID() string {
	return sr.reg.ServiceID + "-http"
}

func (sr *ServiceRegistry) registration() (*api.AgentServiceRegistration, error) {
	_, portStr, err := net.SplitHostPort(sr.reg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("parse listen address %q: %w", sr.reg.ListenAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse listen port %q: %w", portStr, err)
	}

	hostPort := net.JoinHostPort(sr.reg.Address, portStr)
	return &api.AgentServiceRegistration{
		ID:      sr.serviceID(),
		Name:    sr.reg.ServiceName,
		Port:    port,
		Address: sr.reg.Address,
		Check: &api.AgentServiceCheck{
			HTTP:     fmt.Sprintf("http://%s/health", hostPort),
			Interval: "10s",
			Timeout:  "5s",
		},
		Tags: append([]string{"quiz", "http"}, sr.reg.Tags...),
		Meta: map[string]string{
			"protocol": "http",
		},
	}, nil
}
