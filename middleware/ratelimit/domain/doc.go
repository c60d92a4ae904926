// Package domain define tipos e portas do rate limit, sem net/http nem
// implementações concretas.
//
// O algoritmo é sliding window log: cada requisição admitida grava seu
// timestamp e a contagem considera só os timestamps dentro da janela.
package domain
