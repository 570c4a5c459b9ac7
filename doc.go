// Package oomadj computes the importance of running application processes.
//
// A Service owns the process, uid and connection records and re-derives, on
// every update pass, each process's adjustment score, process state,
// scheduling group and capability mask. Mutations come in through the
// Service operations (bind a service, start a receiver, change the top
// process) and are usually coalesced with a batch session:
//
//	srv := oomadj.New()
//	_ = srv.AddProcess(record.NewProcess(1, "com.example.app", 10001))
//	guard := srv.StartBatchSession(model.ReasonActivity)
//	_ = srv.SetTopProcess(1)
//	guard.Close() // runs one update pass
//
// Changes are published as per-process deltas through Subscribe.
package oomadj
