// Package application contém o caso de uso de validação de credenciais.
//
// Depende apenas de domain; não conhece net/http nem Redis.
// Ex.: Validator.Validate(ctx, header) retorna a Identity ou um erro de domínio.
package application
