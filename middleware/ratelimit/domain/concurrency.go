package domain

import "context"

// SlotPool limita quantas requisições o gateway atende ao mesmo tempo.
//
// Acquire espera por uma vaga até o ctx encerrar. Com ok=true o chamador
// deve chamar release; chamadas repetidas de release são ignoradas.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
