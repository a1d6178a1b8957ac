package util

import (
	"fmt"
	"io"
	"net"

	log "github.com/sirupsen/logrus"
)

// getOutboundIP retrieves the preferred outbound IP address of this machine.
// It uses a UDP connection to a public DNS server to determine the local IP
// address that would be used for outbound traffic. No packet is sent.
func getOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			log.Warnf("Failed to close UDP connection: %v", closeErr)
		}
	}()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("could not assert UDP address type")
	}

	return localAddr.IP.String(), nil
}

// GetIPAddress returns this machine's outbound address, or 127.0.0.1 when it
// cannot be determined.
func GetIPAddress() string {
	outboundIP, err := getOutboundIP()
	if err == nil {
		log.Debugf("Outbound IP detected: %s", outboundIP)
		return outboundIP
	}
	log.Warnf("Failed to get outbound IP address: %v", err)
	return "127.0.0.1"
}

// PrintSSHTunnelInstructions writes how to forward the loopback callback port
// when the browser runs on a different machine than steamlink.
func PrintSSHTunnelInstructions(w io.Writer, port int) {
	ipAddress := GetIPAddress()
	border := "================================================================================"
	fmt.Fprintln(w, "If your browser runs on another machine, the Steam redirect needs an SSH tunnel.")
	fmt.Fprintln(w, border)
	fmt.Fprintln(w, "  Run the following command on the machine with the browser:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  ssh -L %d:127.0.0.1:%d <user>@%s\n", port, port, ipAddress)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Then open the login URL in that browser.")
	fmt.Fprintln(w, border)
}
