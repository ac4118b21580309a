package main

import (
	"github.com/mdabushayem62/plex-playlists-sub003/cmd"
)

func main() {
	cmd.Execute()
}
