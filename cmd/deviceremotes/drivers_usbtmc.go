//go:build usbtmc

package main

import "github.com/mickp/deviceremotes/thorlabs"

func init() {
	extraDrivers["itc4000"] = func(ObjSetup) (interface{}, error) {
		return thorlabs.Open()
	}
}
