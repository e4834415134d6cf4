// wager Solana 挑战客户端命令行
package main

func main() {
	Execute()
}
