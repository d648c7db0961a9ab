/*Package comm provides interfaces and embeddable types for communication
with lab instruments over serial or TCP.

Most device packages boil down to:
 1. embed RemoteDevice in a type that represents the hardware, populating
    SerialConfig when the instrument hangs off a serial port
 2. overload RxTerminator and TxTerminator if the instrument does not
    terminate lines with a carriage return (the default here)
 3. write methods on top of SendRecv that speak the instrument's command set

A minimal example for a sensor that responds to "RD?" with a number:

	type MySensor struct {
		comm.RemoteDevice
	}

	func (ms *MySensor) Read() (float64, error) {
		if err := ms.Open(); err != nil {
			return 0, err
		}
		defer ms.Close()
		resp, err := ms.SendRecv([]byte("RD?"))
		if err != nil {
			return 0, err
		}
		return strconv.ParseFloat(string(resp), 64)
	}
*/
package comm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

var (
	terminator = byte('\r')

	// ErrNoSerialConf is generated when IsSerial is true but SerialConfig is nil
	ErrNoSerialConf = errors.New("SerialConfig is nil and instance IsSerial=true")

	// ErrNotConnected is generated when Send or Recv is called with a nil Conn
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not found in a response
	ErrTerminatorNotFound = errors.New("termination byte not found")
)

// Sender has a Send method that passes along a byte slice as well as a
// TxTerminator returning the transmission termination byte
type Sender interface {
	Send([]byte) error
	TxTerminator() byte
}

// Recver has a Recv method that gets a byte slice as well as an
// RxTerminator returning the receipt termination byte
type Recver interface {
	Recv() ([]byte, error)
	RxTerminator() byte
}

// SendRecver can send and receive, and provides a method that sends then receives
type SendRecver interface {
	Sender
	Recver

	SendRecv([]byte) ([]byte, error)
}

// Opener can open ("establish a connection" in io language)
type Opener interface {
	Open() error
}

// A Communicator can Open, Send, Recv and Close
type Communicator interface {
	io.Closer
	Opener
	SendRecver
}

// SerialConfigurator has a SerialConf method that provides a serial.Config
// suitable for passing to serial.OpenPort
type SerialConfigurator interface {
	SerialConf() *serial.Config
}

// Terminators holds the Rx and Tx termination bytes of a device
type Terminators struct {
	Rx byte
	Tx byte
}

// RemoteDevice has an address and implements Communicator.
//
// If IsSerial is true, SerialConfig must be populated before Open.
type RemoteDevice struct {
	Addr     string
	IsSerial bool
	Conn     io.ReadWriteCloser
	terms    Terminators

	// SerialConfig is passed to serial.OpenPort when IsSerial is true
	SerialConfig *serial.Config
}

// NewRemoteDevice creates a new RemoteDevice instance.  terms may be nil,
// in which case carriage returns are used in both directions.  serialConf
// may be nil for network devices.
func NewRemoteDevice(addr string, isSerial bool, terms *Terminators, serialConf *serial.Config) RemoteDevice {
	if terms == nil {
		terms = &Terminators{Rx: terminator, Tx: terminator}
	}
	return RemoteDevice{
		Addr:         addr,
		IsSerial:     isSerial,
		terms:        *terms,
		SerialConfig: serialConf}
}

// SerialConf returns the serial configuration in use
func (rd *RemoteDevice) SerialConf() *serial.Config {
	return rd.SerialConfig
}

// Open the connection, setting the Conn variable.  Connection attempts are
// retried with exponential backoff; some instruments (notably NKT mainframes)
// misbehave when connection thrashed.
func (rd *RemoteDevice) Open() error {
	wasTimeout := false
	op := func() error {
		err := rd.open()
		if err != nil {
			errS := strings.ToLower(err.Error())
			if strings.Contains(errS, "refused") {
				return err
			}
			wasTimeout = true
			return nil
		}
		return nil
	}

	// backoff ceases on a timeout so we don't wait forever; check
	// wasTimeout afterwards to turn it back into an error
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if err == nil && !wasTimeout {
		return nil
	}
	if wasTimeout {
		return fmt.Errorf("connection timeout to %s", rd.Addr)
	}
	return err
}

func (rd *RemoteDevice) open() error {
	var (
		conn io.ReadWriteCloser
		err  error
	)
	if rd.IsSerial {
		conf := rd.SerialConfig
		if conf == nil {
			return ErrNoSerialConf
		}
		conn, err = serial.OpenPort(conf)
	} else {
		conn, err = TCPSetup(rd.Addr, 3*time.Second)
	}
	if err != nil {
		return err
	}
	rd.Conn = conn
	return nil
}

// Close the connection, nil-ing the Conn variable
func (rd *RemoteDevice) Close() error {
	err := rd.Conn.Close()
	if err == nil {
		rd.Conn = nil
	}
	return err
}

// TxTerminator returns the transmission termination byte
func (rd *RemoteDevice) TxTerminator() byte {
	if rd.terms.Tx == 0 {
		return terminator
	}
	return rd.terms.Tx
}

// Send appends the Tx terminator and writes data to the remote
func (rd *RemoteDevice) Send(b []byte) error {
	if rd.Conn == nil {
		return ErrNotConnected
	}
	b = append(b, rd.TxTerminator())
	_, err := rd.Conn.Write(b)
	return err
}

// RxTerminator returns the receipt termination byte
func (rd *RemoteDevice) RxTerminator() byte {
	if rd.terms.Rx == 0 {
		return terminator
	}
	return rd.terms.Rx
}

// Recv receives data from the remote and strips the Rx terminator
func (rd *RemoteDevice) Recv() ([]byte, error) {
	if rd.Conn == nil {
		return nil, ErrNotConnected
	}
	term := rd.RxTerminator()
	buf, err := bufio.NewReader(rd.Conn).ReadBytes(term)
	if err != nil {
		return []byte{}, err
	}
	if bytes.HasSuffix(buf, []byte{term}) {
		idx := bytes.IndexByte(buf, term)
		return buf[:idx], nil
	}
	return buf, ErrTerminatorNotFound
}

// SendRecv sends a buffer after appending the Tx terminator,
// then returns the response with the Rx terminator stripped
func (rd *RemoteDevice) SendRecv(b []byte) ([]byte, error) {
	if err := rd.Send(b); err != nil {
		return []byte{}, err
	}
	return rd.Recv()
}

// WriteThenReadUntil writes data to rw, then reads the response up to and
// including delim.  It is a convenience for framed protocols riding on
// pooled connections.
func WriteThenReadUntil(rw io.ReadWriter, data []byte, delim byte) ([]byte, error) {
	if _, err := rw.Write(data); err != nil {
		return nil, err
	}
	return bufio.NewReader(rw).ReadBytes(delim)
}

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}
