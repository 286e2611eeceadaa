package services

import (
	"fmt"

	"github.com/573dev/gfdm-server/internal/eamuse/codec"
)

// Directory produces the /services/ response: the static table of service
// callback URLs a cabinet fetches before anything else. This is
// configuration data, not dispatch logic.
type Directory struct {
	baseURL string
	ntpURL  string
}

// NewDirectory takes the externally reachable base URL of this server
// (no trailing slash) and the NTP URL to advertise.
func NewDirectory(baseURL, ntpURL string) *Directory {
	return &Directory{baseURL: baseURL, ntpURL: ntpURL}
}

// Document renders the directory.
//
//	<response>
//	  <services expire="600" method="get" mode="operation" status="0">
//	    <item name="ntp" url="..."/>
//	    <item name="keepalive" url=".../keepalive?pa=..."/>
//	    <item name="cardmng" url=".../service/6/"/>
//	    ...
func (d *Directory) Document() *codec.Node {
	svcs := codec.New("services",
		"expire", "600", "method", "get", "mode", "operation", "status", "0")

	svcs.Add(codec.New("item", "name", "ntp", "url", d.ntpURL))

	ip := "127.0.0.1"
	keepalive := fmt.Sprintf("%s/keepalive?pa=%s&ia=%s&ga=%s&ma=%s&t1=2&t2=10",
		d.baseURL, ip, ip, ip, ip)
	svcs.Add(codec.New("item", "name", "keepalive", "url", keepalive))

	for _, t := range All() {
		svcs.Add(codec.New("item",
			"name", t.String(),
			"url", fmt.Sprintf("%s/service/%d/", d.baseURL, int(t))))
	}

	return codec.New("response").Add(svcs)
}
