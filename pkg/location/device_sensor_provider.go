package location

import (
	"bufio"
	"errors"
	"strings"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

// DeviceSensorProvider retrieves location data from a GPS device connected via serial port.
type DeviceSensorProvider struct {
	port     string // Serial port to which the GPS device is connected
	baudRate int    // Baud rate for the serial communication
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int) *DeviceSensorProvider {
	return &DeviceSensorProvider{
		port:     port,
		baudRate: baudRate,
	}
}

// GetLocation reads GPS data from the device and returns the device's location.
func (d *DeviceSensorProvider) GetLocation() (Location, error) {
	c := &serial.Config{Name: d.port, Baud: d.baudRate}
	s, err := serial.OpenPort(c)
	if err != nil {
		return Location{}, err
	}
	defer s.Close()

	scanner := bufio.NewScanner(s)
	for scanner.Scan() {
		loc, ok, err := locationFromSentence(scanner.Text())
		if err != nil {
			return Location{}, err
		}
		if ok {
			return loc, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return Location{}, err
	}

	return Location{}, errors.New("no valid GPS data found")
}

// locationFromSentence parses one line of GPS output. Only GGA sentences
// carry a fix; everything else is skipped without error.
func locationFromSentence(line string) (Location, bool, error) {
	if !strings.HasPrefix(line, "$GPGGA") {
		return Location{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Location{}, false, err
	}

	gga, ok := sentence.(nmea.GGA)
	if !ok {
		return Location{}, false, nil
	}
	return Location{
		Latitude:  gga.Latitude,
		Longitude: gga.Longitude,
		Accuracy:  float64(gga.HDOP), // Use HDOP as a proxy for accuracy
	}, true, nil
}
