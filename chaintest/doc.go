/*
Package chaintest 是合约自动化测试的框架。

通常的用法:
  - 用 NewSimulated 启动一条内存链，或用 rpcclient 连接运行中的节点
  - 用 NewExecutor 包装上面的 Backend
  - 用 DeployContract 部署合约，得到 ContractInvoker
  - 用 WithSigner 切换调用者，Invoke 发送交易，Call 做只读查询

每一笔交易都会等到回执出现才返回，调用方看到的状态总是已经上链的。
*/
package chaintest
