// Package onewire manages DS18B20 temperature sensors on a Linux 1-Wire bus.
//
// The w1-therm kernel driver exposes every slave as a directory under the
// bus base (normally /sys/bus/w1/devices). DS18B20 probes use family code
// 28, so their directories are named like "28-0000000000ab", and each one
// holds a w1_slave file with two lines of text:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
//
// The first line ends in YES when the CRC matched; the second carries the
// temperature in milli-degrees Celsius.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────┐
//	│                       Registry                         │
//	│   map[sensor id]*Sensor, RWMutex, Discover, Summary    │
//	└───────────────┬───────────────────────────────────────┘
//	                │ Add / Get / ReadAll / ReadAvailable
//	                ▼
//	┌───────────────────────────────────────────────────────┐
//	│                        Sensor                          │
//	│  Available() ─ fs.Stat dir + w1_slave                  │
//	│  ReadTemperature() ─ read lines, ParseTemperature,     │
//	│                      retry per RetryPolicy             │
//	└───────────────┬───────────────────────────────────────┘
//	                ▼
//	          fs.FS (os.DirFS(base) in production)
//
// Failures never surface as Go errors from the registry. A read that
// cannot produce a temperature returns a TemperatureReading with Valid
// false and Error describing why.
//
// # Usage
//
//	reg := onewire.NewRegistry(onewire.Config{BaseDir: "/sys/bus/w1/devices"})
//	reg.SetLogger(logger)
//	for _, id := range reg.Discover() {
//	    reg.Add(id, id)
//	}
//	for _, r := range reg.ReadAvailable(ctx) {
//	    fmt.Println(r.SensorID, r.Celsius)
//	}
package onewire
