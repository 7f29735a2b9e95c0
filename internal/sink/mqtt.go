package sink

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/evtele/easee/helpers"
	"github.com/evtele/easee/log2"
	"github.com/juju/errors"
)

const (
	DefaultMQTTClientID    = "easee-bridge"
	DefaultMQTTTopicPrefix = "easee"
	DefaultMQTTKeepalive   = 60 * time.Second
	DefaultMQTTTimeout     = 30 * time.Second
)

// MQTT publishes every record as JSON to prefix/charger/name.
// Broker sees prefix/status "online", or retained will "offline" after disconnect.
type MQTT struct {
	log     *log2.Log
	m       mqtt.Client
	prefix  string
	qos     byte
	retain  bool
	timeout time.Duration
}

func NewMQTT(c MQTTConfig, log *log2.Log) (*MQTT, error) {
	mqttLog := log.Clone(log2.LInfo)
	if c.LogDebug {
		mqttLog.SetLevel(log2.LDebug)
		mqtt.DEBUG = mqttLog
	}
	mqtt.ERROR = mqttLog
	mqtt.CRITICAL = mqttLog
	mqtt.WARN = mqttLog

	self := newMQTT(c, log)
	clientID := c.ClientID
	if clientID == "" {
		clientID = DefaultMQTTClientID
	}
	keepalive := helpers.IntSecondDefault(c.KeepaliveSec, DefaultMQTTKeepalive)

	tlsconf := new(tls.Config)
	if c.TlsCaFile != "" {
		tlsconf.RootCAs = x509.NewCertPool()
		cabytes, err := ioutil.ReadFile(c.TlsCaFile)
		if err != nil {
			return nil, errors.Annotatef(err, "sink mqtt TLS")
		}
		tlsconf.RootCAs.AppendCertsFromPEM(cabytes)
	}

	mopt := mqtt.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(clientID).
		SetUsername(c.Username).
		SetPassword(c.Password).
		SetWill(self.TopicStatus(), "offline", 1, true).
		SetCleanSession(true).
		SetKeepAlive(keepalive).
		SetPingTimeout(self.timeout).
		SetConnectTimeout(self.timeout).
		SetWriteTimeout(self.timeout).
		SetOrderMatters(true).
		SetTLSConfig(tlsconf).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(keepalive).
		SetOnConnectHandler(self.onConnectHandler).
		SetConnectionLostHandler(self.connectLostHandler)
	self.m = mqtt.NewClient(mopt)

	self.log.Debugf("sink mqtt connect broker=%s client=%s", c.Broker, clientID)
	token := self.m.Connect()
	if !token.WaitTimeout(self.timeout) {
		self.m.Disconnect(0)
		return nil, errors.Timeoutf("sink mqtt connect broker=%s", c.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Annotatef(err, "sink mqtt connect broker=%s", c.Broker)
	}
	return self, nil
}

// NewMQTTClient uses ready client, for tests and custom options.
func NewMQTTClient(m mqtt.Client, c MQTTConfig, log *log2.Log) *MQTT {
	self := newMQTT(c, log)
	self.m = m
	return self
}

func newMQTT(c MQTTConfig, log *log2.Log) *MQTT {
	prefix := strings.TrimSuffix(c.TopicPrefix, "/")
	if prefix == "" {
		prefix = DefaultMQTTTopicPrefix
	}
	return &MQTT{
		log:     log,
		prefix:  prefix,
		qos:     byte(c.QoS),
		retain:  c.Retain,
		timeout: helpers.IntSecondDefault(c.TimeoutSec, DefaultMQTTTimeout),
	}
}

func (self *MQTT) Topic(r Record) string {
	return fmt.Sprintf("%s/%s/%s", self.prefix, r.ChargerID, r.Name)
}
func (self *MQTT) TopicStatus() string { return self.prefix + "/status" }

func (self *MQTT) Deliver(ctx context.Context, r Record) error {
	payload, err := r.MarshalBinary()
	if err != nil {
		return errors.Trace(err)
	}
	topic := self.Topic(r)
	token := self.m.Publish(topic, self.qos, self.retain, payload)
	if !token.WaitTimeout(self.timeout) {
		return errors.Timeoutf("sink mqtt publish topic=%s", topic)
	}
	return errors.Annotatef(token.Error(), "sink mqtt publish topic=%s", topic)
}

func (self *MQTT) Close() error {
	token := self.m.Publish(self.TopicStatus(), 1, true, "offline")
	token.WaitTimeout(self.timeout)
	self.m.Disconnect(uint(self.timeout / time.Millisecond))
	return nil
}

func (self *MQTT) onConnectHandler(c mqtt.Client) {
	self.log.Infof("sink mqtt connect")
	c.Publish(self.TopicStatus(), 1, true, "online")
}

func (self *MQTT) connectLostHandler(c mqtt.Client, err error) {
	self.log.Infof("sink mqtt disconnect err=%v", err)
}
