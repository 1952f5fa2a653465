// Command reportbot runs the guided cleaning-report Telegram bot.
package main

func main() {
	Execute()
}
